// Command apitoken manages the bearer token that protects the hashdrop
// API.
//
// Only a bcrypt hash of the token is stored, in the metadata table of the
// history database. The server reads it at startup unless API_TOKEN_HASH
// is set in the environment.
//
// Usage:
//
//	apitoken <command>
//
// Commands:
//
//	generate  Create a random token, store its hash and print the token once.
//	set       Prompt for a token twice and store its hash.
//	clear     Remove the stored hash. The API is then open.
//	verify    Prompt for a token and compare it with the stored hash.
//	status    Show whether a token is configured.
//	hash      Prompt for a token and print its hash, for API_TOKEN_HASH.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: ./data)
package main

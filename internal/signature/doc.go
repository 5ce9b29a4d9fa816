// Package signature identifies file types from content.
//
// [Magic] sniffs the leading bytes of a file and reports a MIME type
// (with the charset of text files) and a human-readable description drawn
// from a table keyed by MIME type. Raster images get their dimensions
// appended, read from the image header only:
//
//	d := signature.NewMagic()
//	mime, _ := d.MIME("/photos/a.png")     // "image/png"
//	desc, _ := d.Describe("/photos/a.png") // "PNG image data, 640 x 480"
//
// [LargeFileLimit] reports the size above which callers should sniff a
// truncated copy instead of the file itself.
package signature

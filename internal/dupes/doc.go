// Package dupes groups records by an identity digest and answers the two
// questions a table view asks per row: which highlight color, if any, and
// whether duplicate filtering hides it.
//
// The identity of a record is its value for the strongest enabled digest
// that holds a real value (SHA-256, then SHA-1, then MD5). Empty cells, the
// "-" dash and error-tagged values never group.
//
// Groups are maintained incrementally: each insert, digest update and
// removal touches only the affected group. A group keeps the color it was
// given for the whole batch, so removing its first member promotes the next
// one without a visible change of color. Colors come from a ten-entry
// palette and repeat once more than ten groups exist.
package dupes

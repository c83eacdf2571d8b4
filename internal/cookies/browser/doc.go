// Package browser reads cookies out of local browser profiles so they can be
// loaded into a cookie store. It understands the Firefox moz_cookies SQLite
// schema, the Chrome cookies SQLite schema (unencrypted values only) and the
// Netscape cookies.txt format.
//
// Cookie values are never logged; only names, domains and counts are.
package browser

// Package objecturl tracks transient object URLs: in-memory previews of
// files that have been picked but not yet persisted.
//
// Each logical UI slot (scope + slot name, e.g. "upload-modal"/"file-0" or
// "settings"/"avatar") owns at most one handle. Assigning a new handle to
// a slot releases the old one, tearing down a scope releases everything it
// still owns, and deleting a media record releases any transient url or
// thumbnail it carried. A handle is released exactly once no matter how
// many of those paths reach it.
package objecturl

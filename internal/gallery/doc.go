// Package gallery exports published works as gallery.json for the public
// site, together with 4:5 thumbnails and the work images themselves.
package gallery

// Package photos turns a flat tree of student work photos into posts.
//
// Scan walks a source tree and resolves each image's capture time from
// Google Takeout style sidecar JSON, falling back to the file birth time.
// GroupByTime clusters photos whose consecutive capture times are within a
// threshold, and Materialize copies each group into its own numbered folder.
// SortListing orders the images of an already grouped folder for posting.
package photos

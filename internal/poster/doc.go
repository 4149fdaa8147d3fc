// Package poster turns rows of the post table into Instagram and X posts.
//
// Scan registers new work folders as rows, RunDaily publishes the rows
// scheduled for a given day and TestPost publishes one folder directly.
// Platform clients and the image host sit behind small interfaces so the
// orchestration can be exercised without network access.
package poster

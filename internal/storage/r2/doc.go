// Package r2 talks to Cloudflare R2 through the S3 API.
//
// R2 serves three purposes: temporary public hosting of images while the
// Instagram Graph API fetches them, persistence of the long-lived Instagram
// token, and publication of the gallery JSON and thumbnails.
package r2

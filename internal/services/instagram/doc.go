// Package instagram publishes images through the Instagram Graph API.
//
// Publishing is a three step exchange: create a media container pointing at
// a publicly reachable image URL, wait for Instagram to finish fetching it,
// then publish the container. Carousels add one child container per image.
// TokenManager keeps the long-lived access token fresh and persists it to R2.
package instagram

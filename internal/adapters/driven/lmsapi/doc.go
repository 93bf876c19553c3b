// Package lmsapi implements the ContentAPI port against the LMS REST API.
//
// Every list call is depaginated through the Link response header before
// returning, so callers always see complete result sets. Requests carry a
// bearer token through an oauth2 transport and are throttled by a shared
// token bucket to stay inside the API quota.
package lmsapi

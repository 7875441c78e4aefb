// Package web captures pages over HTTP for the background context.
//
// A capture fetches the page, keeps either the whole document or its main
// article, resolves image references against the page URL and optionally
// downloads the images. All fetches share one rate limiter.
package web

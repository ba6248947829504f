// Package services holds helpers shared by the external integrations and the
// resolver pipeline.
//
// It provides context helpers that stamp request correlation IDs and viewer
// regions for logging, plus the sentinel error markers and Wrap helper used to
// classify failures. HTTPStatus turns those markers into response codes.
package services

// Package smsgateway is a client for the android-sms-gateway HTTP API.
//
// The gateway turns an Android phone into an SMS relay: a message is accepted
// with POST {base}/message and its delivery state can be polled with
// GET {base}/message/{id}. Requests are authenticated with HTTP basic auth and
// may be routed through an HTTP proxy.
package smsgateway

package nats

var DecodeResponse = decodeResponse

package main

import "errors"

var errSyncNotConfigured = errors.New("sync requested but AVERO_API_URL or the Avero key is not set")

package main

import "time"

const (
	serialReadBufSize = 1024 // per read() buffer; well under the 8 KiB receive ring
	rxBackoffMin      = 20 * time.Millisecond
	rxBackoffMax      = 500 * time.Millisecond
	envPrefix         = "UBX_LOGGER_"
)

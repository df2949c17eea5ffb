//go:build !windows

package main

import "github.com/rs/zerolog"

func logDPIInfo(zerolog.Logger) {}

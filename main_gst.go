//go:build gstreamer

package main

import (
	_ "github.com/smazurov/switchboard/internal/engine/gstengine"
	"github.com/smazurov/switchboard/internal/version"
)

func init() {
	version.Engine = "gstreamer"
}

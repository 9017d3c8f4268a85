package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/mixdown-audio/mixdown"
	"github.com/mixdown-audio/mixdown/offline"
	"github.com/mixdown-audio/mixdown/version"
)

func main() {
	addr := pflag.String("addr", ":10000", "Address to listen on.")
	maxBody := pflag.Int64("max-body", 8<<20, "Largest accepted project, in bytes.")
	versionFlag := pflag.BoolP("version", "v", false, "Print version.")
	pflag.Parse()
	if *versionFlag {
		fmt.Println(version.Long("mixdown-server"))
		os.Exit(0)
	}
	logger := log.New(os.Stderr, "", log.Ldate|log.Ltime)
	s := &server{
		renderer: mixdown.NewRenderer(offline.Engine{}, mixdown.WithLogger(logger)),
		logger:   logger,
		maxBody:  *maxBody,
	}
	http.Handle("/", newRouter(s))

	logger.Printf("Starting server on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting server: %v\n", err)
		os.Exit(1)
	}
}

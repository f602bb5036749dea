package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	resque "github.com/splitice/go-resque"
)

func main() {
	flag.Parse()

	// Re-executed by the foreman: perform one job from stdin and exit.
	if resque.ChildMode() {
		os.Exit(resque.RunChild())
	}

	if resque.Settings().QueuesString == "" && resque.Settings().ConfigFile == "" {
		fmt.Println("resque-worker: a Redis-backed background worker")
		fmt.Println("\nUsage: resque-worker [options]")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		fmt.Println("\nExample:")
		fmt.Println("  resque-worker -queues=high,low -interval=5 -fork")
		os.Exit(1)
	}

	if err := resque.Work(); err != nil {
		log.Fatal("Error: ", err)
	}
}

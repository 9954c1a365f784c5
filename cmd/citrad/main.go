// Command citrad runs the citra demo application on the httpx pipeline.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

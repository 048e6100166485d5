// Command mediactl is the operator CLI of the catalog media pipeline.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main provides the CLI entrypoint for deskrc.
package main

func main() {
	Execute()
}

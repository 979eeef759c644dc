package main

import "github.com/shouni/go-feed-harvest/cmd"

func main() {
	cmd.Execute()
}

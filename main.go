package main

import "github.com/ML-4-SocialGood/ReWildID/cmd"

func main() {
	cmd.Execute()
}

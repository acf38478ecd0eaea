/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/flaskr-go/flaskr/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/nextdhcp/leasehook/leasemain"

func main() {
	leasemain.Run()
}

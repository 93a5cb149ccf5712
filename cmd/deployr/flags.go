package main

import "time"

// Flag structs to decouple cobra from logic for testing.

type RegisterFlags struct {
	ID         string
	Name       string
	Path       string
	RunCommand string
	APIUrl     string
	APITimeout time.Duration
}

type ProjectFlags struct {
	ID         string
	APIUrl     string
	APITimeout time.Duration
}

type StatusFlags struct {
	ID         string
	Detailed   bool
	APIUrl     string
	APITimeout time.Duration
}

type ListFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

type ServeFlags struct {
	ConfigPath string
}

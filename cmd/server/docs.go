// Package main Enhancer API
//
//	@title			Enhancer API
//	@version		1.0
//	@description	Image enhancement service: upscaling, face restoration and img2img with plan and credit accounting.
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@tag.name			Enhance
//	@tag.description	Image enhancement and model catalog
//
//	@tag.name			Files
//	@tag.description	Stored originals and results
package main

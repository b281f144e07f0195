// Package model defines the provider-agnostic abstraction agents use to
// produce answers to incoming queries.
//
// A Model turns a single prompt plus optional instructions into text. Vendor
// adapters live in the openai and anthropic sub-packages; MockModel serves
// tests and examples.
package model

// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing log entries and scripting log client
// behavior. These helpers are intentionally minimal and are not intended for
// production usage.
package testutil

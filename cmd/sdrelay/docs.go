package main

// General API documentation for swaggo. Run `swag init -g cmd/sdrelay/docs.go` to regenerate docs/.
//
// @title           sdrelay API
// @version         1.0
// @description     JSON-RPC relay in front of a Stable Diffusion web UI, with an SSE heartbeat stream.
//
// @contact.name   sdrelay maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

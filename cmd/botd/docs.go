package main

// General API documentation for swaggo. Run `swag init -g cmd/botd/docs.go`
// to regenerate docs/.
//
// @title           botd API
// @version         1.0
// @description     Module settings and status of the Twitch bot.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

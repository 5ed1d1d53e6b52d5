package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           swarmd API
// @version         1.0
// @description     HTTP API for emulator-farm queue scheduling and slot arbitration.
//
// @contact.name   swarmd maintainers
// @contact.url    https://github.com/your-org/swarmd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

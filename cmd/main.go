// cmd/main.go
package main

import (
	"pharmacy-api/app"
)

// @title           Pharmacy API
// @version         1.0
// @description     Pharmacy backend with token-based authentication, lab test tracking and prescription management.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}

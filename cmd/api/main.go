package main

import (
	"fmt"
	"os"
)

// @title           Patient Health QR API
// @version         1.0
// @description     Acceso temporal por QR a datos de salud del paciente, por niveles.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

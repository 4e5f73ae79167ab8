// cmd/gentoken/main.go — Emite un token de operador firmado con JWT_SECRET.
// Uso: go run ./cmd/gentoken -usuario 7 -username ana -rol supervisor -ttl 24h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"inventnet/internal/config"
	"inventnet/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	usuario := flag.Int("usuario", 1, "id del usuario")
	username := flag.String("username", "admin", "nombre de usuario")
	rol := flag.String("rol", middleware.RolAdministrador, "administrador | supervisor | operador")
	ttl := flag.Duration("ttl", 24*time.Hour, "vigencia del token")
	flag.Parse()

	switch *rol {
	case middleware.RolAdministrador, middleware.RolSupervisor, middleware.RolOperador:
	default:
		fmt.Fprintf(os.Stderr, "rol desconocido: %s\n", *rol)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET no está definido")
		os.Exit(1)
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:   *usuario,
		Username: *username,
		Rol:      *rol,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(*usuario),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "firma: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

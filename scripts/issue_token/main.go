package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/eduportal-api/internal/models"
	"github.com/noah-isme/eduportal-api/internal/service"
	"github.com/noah-isme/eduportal-api/pkg/config"
	"github.com/noah-isme/eduportal-api/pkg/logger"
)

// issue_token mints an access token signed with JWT_SECRET for local testing of the API.
func main() {
	userID := flag.String("user", "", "user id carried in the token")
	role := flag.String("role", string(models.RoleTeacher), "SUPERADMIN, ADMIN, TEACHER or STUDENT")
	email := flag.String("email", "", "optional email claim")
	name := flag.String("name", "", "optional full name claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if strings.TrimSpace(*userID) == "" {
		flag.Usage()
		os.Exit(2)
	}
	userRole := models.UserRole(strings.ToUpper(*role))
	switch userRole {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher, models.RoleStudent:
	default:
		log.Fatalf("unknown role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	auth := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, AccessTokenExpiry: *ttl})
	token, expiresAt, err := auth.IssueToken(*userID, userRole, *email, *name)
	if err != nil {
		logr.Sugar().Fatalw("failed to issue token", "error", err)
	}
	logr.Sugar().Infow("token issued", "user_id", *userID, "role", userRole, "expires_at", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}

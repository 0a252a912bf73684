package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/certledger/certledger/internal/auth"
	"github.com/certledger/certledger/internal/config"
	"github.com/certledger/certledger/internal/db"
	"github.com/certledger/certledger/internal/db/repository"
	"github.com/certledger/certledger/internal/models"
)

var (
	configPath string
	cfg        *config.Config
	database   *db.DB
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Certificate Ledger Server administration tool",
	Long:  "Administrative tool for managing Certificate Ledger Server admin accounts and audit logs",
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage admin users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new admin user",
	RunE:  createUser,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all admin users",
	RunE:  listUsers,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit log entries",
	RunE:  listAudit,
}

var (
	username     string
	password     string
	generateTOTP bool
	totpSecret   string
	enabled      bool
	auditAction  string
	auditCertID  string
	auditLimit   int
)

func init() {
	// Root flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/certledger/config.yaml", "Config file path")

	// User create flags
	userCreateCmd.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	userCreateCmd.Flags().StringVarP(&password, "password", "p", "", "Password (required)")
	userCreateCmd.Flags().BoolVar(&generateTOTP, "generate-totp", false, "Generate TOTP secret automatically")
	userCreateCmd.Flags().StringVar(&totpSecret, "totp-secret", "", "TOTP secret (required if not generating)")
	userCreateCmd.Flags().BoolVar(&enabled, "enabled", true, "Enable the account")

	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("password")

	// Audit list flags
	auditListCmd.Flags().StringVar(&auditAction, "action", "", "Filter by action")
	auditListCmd.Flags().StringVar(&auditCertID, "cert-id", "", "Filter by certificate id")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum entries to show")

	// Add commands
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	auditCmd.AddCommand(auditListCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initDB() error {
	// Load configuration
	var err error
	cfg, err = config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Connect to database
	database, err = db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func createUser(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	// Get or generate TOTP secret
	var secret string
	if generateTOTP {
		var err error
		secret, err = auth.GenerateTOTPSecret(username)
		if err != nil {
			return fmt.Errorf("failed to generate TOTP secret: %w", err)
		}
		log.Printf("Generated TOTP secret: %s", secret)
	} else {
		if totpSecret == "" {
			return fmt.Errorf("either --generate-totp or --totp-secret must be provided")
		}
		secret = totpSecret
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.AdminUser{
		Username:     username,
		PasswordHash: passwordHash,
		TOTPSecret:   secret,
		Enabled:      enabled,
	}

	adminRepo := repository.NewAdminRepository(database.DB)
	if err := adminRepo.Create(user); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	fmt.Printf("Created admin user %q (id %d)\n", user.Username, user.ID)
	fmt.Printf("TOTP provisioning URL:\n  %s\n", auth.ProvisioningURL(secret, username))

	return nil
}

func listUsers(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	adminRepo := repository.NewAdminRepository(database.DB)
	users, err := adminRepo.List()
	if err != nil {
		return fmt.Errorf("failed to list admin users: %w", err)
	}

	fmt.Printf("%-6s %-24s %-8s %s\n", "ID", "USERNAME", "ENABLED", "CREATED")
	for _, user := range users {
		fmt.Printf("%-6d %-24s %-8t %s\n",
			user.ID, user.Username, user.Enabled, user.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func listAudit(cmd *cobra.Command, args []string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.Close()

	auditRepo := repository.NewAuditRepository(database.DB)
	entries, err := auditRepo.List(auditAction, auditCertID, auditLimit)
	if err != nil {
		return fmt.Errorf("failed to list audit logs: %w", err)
	}

	for _, entry := range entries {
		status := "ok"
		if !entry.Success {
			status = "failed: " + entry.ErrorMsg
		}
		fmt.Printf("%s  %-18s %-28s %-16s %s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Action,
			entry.CertID,
			entry.Username,
			status)
	}

	return nil
}

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for genstory",
	Long:  `Configure API keys, create the results directory, and write a .env file.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(headerStyle.Render("genstory setup"))

	if err := createDirectories(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	if err := configureEnv(); err != nil {
		return fmt.Errorf("configure environment: %w", err)
	}

	return nil
}

func createDirectories() error {
	for _, dir := range []string{"results", ".cache"} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Println(successStyle.Render("Created directories"))
	return nil
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	var apiKey string
	if err := huh.NewInput().
		Title("Gemini API key").
		Description("Leave empty to fetch it from Secret Manager at runtime").
		EchoMode(huh.EchoModePassword).
		Value(&apiKey).
		Run(); err != nil {
		return err
	}
	if apiKey != "" {
		env["GEMINI_API_KEY"] = apiKey
	}

	var useGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("Enables the GCS results archive and Secret Manager key lookup").
		Value(&useGCP).
		Run(); err != nil {
		return err
	}

	if useGCP {
		var project, bucket string
		if err := huh.NewInput().
			Title("GCP project ID").
			Value(&project).
			Run(); err != nil {
			return err
		}
		if err := huh.NewInput().
			Title("GCS bucket for archived results").
			Description("Leave empty to keep results local only").
			Value(&bucket).
			Run(); err != nil {
			return err
		}
		if project != "" {
			env["GOOGLE_CLOUD_PROJECT"] = project
		}
		if bucket != "" {
			env["GCS_BUCKET"] = bucket
		}
	}

	return writeEnvFile(env)
}

func writeEnvFile(env map[string]string) error {
	var b strings.Builder
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_CLOUD_PROJECT", "GCS_BUCKET"} {
		if value, ok := env[key]; ok {
			fmt.Fprintf(&b, "%s=%s\n", key, value)
		}
	}

	if err := os.WriteFile(".env", []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("write .env: %w", err)
	}

	fmt.Println(successStyle.Render("Wrote .env"))
	return nil
}

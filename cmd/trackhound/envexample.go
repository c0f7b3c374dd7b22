package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const envExampleFile = ".env.example"

// envSection groups flags sharing a name prefix under one heading.
type envSection struct {
	title  string
	prefix string
	notes  []string
}

var envSections = []envSection{
	{title: "TELEGRAM - Required", prefix: "telegram-", notes: []string{
		"Create a bot with @BotFather and paste its token below.",
	}},
	{title: "SPOTIFY - Optional, enables Spotify links", prefix: "spotify-", notes: []string{
		"Get these from https://developer.spotify.com/dashboard",
		"Without them Spotify links are answered with an error.",
	}},
	{title: "DOWNLOADS", prefix: "download-", notes: []string{
		"yt-dlp and ffmpeg must be installed for extractor-based sources and conversion.",
	}},
	{title: "AUDIO SOURCES", prefix: "providers-", notes: []string{
		"Sources needing a key or token are skipped while it is empty.",
	}},
	{title: "SERVER", prefix: "server-"},
	{title: "LOGGING", prefix: "log-"},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(envExampleFile, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", envExampleFile, err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	rule := strings.Repeat("=", 77)
	fmt.Fprintf(&content, "# %s\n", rule)
	content.WriteString("# trackhound Configuration\n")
	fmt.Fprintf(&content, "# %s\n", rule)
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# Every variable has a CLI flag equivalent (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SECTION>_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<section>-<setting>\n")
	content.WriteString("#\n\n")

	flags := cmd.Root().PersistentFlags()
	seen := map[string]bool{"config": true, "generate-env-example": true}

	for _, section := range envSections {
		fmt.Fprintf(&content, "# %s\n# %s\n", rule, section.title)
		for _, note := range section.notes {
			fmt.Fprintf(&content, "# %s\n", note)
		}
		fmt.Fprintf(&content, "# %s\n", rule)

		flags.VisitAll(func(f *pflag.Flag) {
			if seen[f.Name] || !strings.HasPrefix(f.Name, section.prefix) {
				return
			}
			seen[f.Name] = true
			writeEnvLine(&content, f)
		})
		content.WriteString("\n")
	}

	fmt.Fprintf(&content, "# %s\n# APPLICATION\n# %s\n", rule, rule)
	flags.VisitAll(func(f *pflag.Flag) {
		if !seen[f.Name] {
			writeEnvLine(&content, f)
		}
	})

	return content.String()
}

func writeEnvLine(content *strings.Builder, f *pflag.Flag) {
	value := f.DefValue
	if value == "[]" {
		value = ""
	}
	fmt.Fprintf(content, "%s=%s  # %s\n", flagToEnvVar(f.Name), value, f.Usage)
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

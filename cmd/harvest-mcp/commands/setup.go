package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

func setupCommand() *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Configure OAuth authentication interactively",
		Action: setupAction,
	}
}

func setupAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}

	fmt.Println("=== Harvest MCP Server Setup ===")

	if application.AuthConfigured(ctx) {
		confirm, err := prompt("Authentication is already configured. Do you want to reconfigure? (y/N): ")
		if err != nil {
			return err
		}
		if !strings.EqualFold(confirm, "y") {
			fmt.Println("Setup canceled. Using existing configuration.")
			return nil
		}
	}

	fmt.Println()
	fmt.Println("You need to register an OAuth2 application in Harvest:")
	fmt.Println("1. Go to https://id.getharvest.com/developers")
	fmt.Println(`2. Click "Create New OAuth2 Application"`)
	fmt.Println(`3. Set Name to "Harvest MCP"`)
	fmt.Println(`4. Set Redirect URL to "http://localhost:3000/oauth/callback"`)
	fmt.Println(`5. Set Multi Account to "No"`)
	fmt.Println(`6. Select only "Harvest" under Products`)
	fmt.Println(`7. Click "Create Application"`)
	fmt.Println()

	clientID, err := prompt("Enter your Harvest OAuth2 Client ID: ")
	if err != nil {
		return err
	}
	if clientID == "" {
		fmt.Println("Client ID is required. Setup canceled.")
		return nil
	}

	clientSecret, err := promptSecret("Enter your Harvest OAuth2 Client Secret: ")
	if err != nil {
		return err
	}
	if clientSecret == "" {
		fmt.Println("Client Secret is required. Setup canceled.")
		return nil
	}

	fmt.Println()
	fmt.Println("Starting OAuth authentication flow...")

	account, err := application.RunAuthFlow(ctx, clientID, clientSecret)
	if err != nil {
		fmt.Println("Please try again later or use the HARVEST_API_KEY and HARVEST_ACCOUNT_ID environment variables.")
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Printf("Authentication successful! Connected to Harvest account %q.\n", account.Name)
	fmt.Println("Your Harvest MCP server is now configured.")
	return nil
}

func prompt(question string) (string, error) {
	fmt.Print(question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal, falling back
// to a plain read otherwise (e.g. piped input in scripts).
func promptSecret(question string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(question)
	}

	fmt.Print(question)
	secret, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

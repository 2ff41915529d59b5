package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/lendmon/lendmon/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		platform        string
		rpcURL          string
		pool            string
		account         string
		pollIntervalStr string
		webAddr         string
		confirm         bool
	)

	// defaults
	pollIntervalStr = "60s"

	// step 1: welcome
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("LENDMON CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's get your lending account monitored in style.\n"))

	// price feed
	fmt.Println(stepStyle.Render("STEP 1: PRICE FEED"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Price Feed Platform").
				Options(
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Hyperliquid", "hyperliquid"),
					huh.NewOption("Static (built-in table)", "static"),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	// account
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LENDMON CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: ACCOUNT"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Account Address").
				Description("Address of the wallet to monitor (0x...)").
				Value(&account).
				Validate(validateAddress),
		),
	).Run()
	if err != nil {
		return err
	}

	// chain
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LENDMON CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: CHAIN"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Ethereum JSON-RPC URL").
				Description("Leave empty to run on journaled positions only").
				Value(&rpcURL),
			huh.NewInput().
				Title("Lending Pool Address").
				Description("Pool contract (0x...), leave empty if no RPC").
				Value(&pool).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					return validateAddress(s)
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// timing
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LENDMON CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: TIMING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Poll Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&pollIntervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewInput().
				Title("Web Address").
				Description("Snapshot stream listen address (e.g. :8080), empty disables").
				Value(&webAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LENDMON CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Price Feed: %s\nAccount: %s\nRPC: %s\nPool: %s\nInterval: %s\nWeb: %s\n",
		platform, account, orNone(rpcURL), orNone(pool), pollIntervalStr, orNone(webAddr),
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfgTmp := config.ConfigTmp{
		Platform:     platform,
		RPCURL:       rpcURL,
		Pool:         pool,
		Account:      account,
		PollInterval: pollIntervalStr,
		WebAddr:      webAddr,
		Assets:       config.DefaultAssetsTmp(),
	}
	if platform == "static" {
		cfgTmp.StaticPrices = config.DefaultStaticPricesTmp()
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting monitor...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateAddress(s string) error {
	if s == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !common.IsHexAddress(s) {
		return fmt.Errorf("invalid address: must be a 20-byte hex address (0x...)")
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

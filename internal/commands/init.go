package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/semdiff/internal/config"
)

// InitCommand returns the CLI command for initializing semdiff
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a sample configuration file",
		Description: "Creates the configuration directory (~/.semdiff by default) and writes " +
			"a commented .env with every supported setting. An existing file is kept " +
			"unless --force is given, in which case it is backed up first.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Usage: "Configuration directory",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Overwrite an existing .env after backing it up",
			},
		},
		Action: initAction,
	}
}

func initAction(c *cli.Context) error {
	out := c.App.Writer
	printHeading(out, "Initializing semdiff")

	configDir := c.String("config-dir")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".semdiff")
	}
	printInfo(out, "Configuration directory: "+color.YellowString("%s", configDir))

	existed := fileExists(filepath.Join(configDir, ".env"))
	path, err := config.WriteSampleEnv(configDir, c.Bool("force"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to write configuration: %s", err), 1)
	}

	if existed && !c.Bool("force") {
		printWarning(out, "Configuration file already exists, left unchanged (use --force to replace it)")
	} else {
		printSuccess(out, "Wrote "+color.YellowString("%s", path))
	}

	fmt.Fprintln(out)
	printInfo(out, "Set "+color.CyanString("SEMDIFF_CLAUDE_API_KEY")+" (or another provider) and run "+color.CyanString("semdiff")+" inside a repository.")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

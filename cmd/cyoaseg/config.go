package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/cyoaseg/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [file]",
	Short: "Print the effective configuration or save it to file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if err := config.Save(cfg, args[0]); err != nil {
				return err
			}
			fmt.Printf("[+++] Config saved: %s\n", args[0])
			return nil
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

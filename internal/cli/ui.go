package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(color.New(color.Bold).Sprint(title))
		fmt.Println(strings.Repeat("─", len([]rune(title))+2))
	}
}

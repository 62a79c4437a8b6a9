// Command interview-agent joins interview rooms and runs the interviewer.
//
// Usage:
//
//	interview-agent start              dispatch rooms from LiveKit webhooks
//	interview-agent connect --room R   join one room and exit when it ends
//	interview-agent personas           list the interview types
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

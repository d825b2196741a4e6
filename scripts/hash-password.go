// Command hash-password prints a bcrypt hash for ADMIN_PASSWORD_HASH.
// The password is read from the first argument or, when absent, from stdin.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const cost = 12

func main() {
	password, err := readPassword()
	if err != nil || password == "" {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/hash-password.go <password>\n")
		fmt.Fprintf(os.Stderr, "   or: echo -n <password> | go run scripts/hash-password.go\n")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(hash))
}

func readPassword() (string, error) {
	if len(os.Args) >= 2 {
		return os.Args[1], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

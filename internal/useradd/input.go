package useradd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/cmsauth/internal/common"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

func promptPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// GetPassword reads a password twice without echo and returns it when both
// entries match. The caller wipes the returned slice.
func GetPassword(w io.Writer) ([]byte, error) {
	pw, err := promptPassword(w, "Enter password: ")
	if err != nil {
		return nil, err
	}

	confirm, err := promptPassword(w, "Repeat password: ")
	defer common.WipeByteArray(confirm)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}

	if !bytes.Equal(pw, confirm) {
		common.WipeByteArray(pw)
		return nil, errPasswordMismatch
	}
	return pw, nil
}

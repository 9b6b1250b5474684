package main

import (
	"context"
)

func (cli *commandLine) resetPassword(formID int, pwd string) error {
	return cli.appSvc.ResetApplicantPassword(context.Background(), formID, pwd)
}

func (cli *commandLine) closeExpired() error {
	n, err := cli.admissionSvc.CloseExpired(context.Background())
	if err != nil {
		return err
	}
	logger.Printf("closed %d expired admission(s)\n", n)
	return nil
}

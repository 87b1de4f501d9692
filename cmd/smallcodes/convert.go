package main

import (
	"github.com/gasparian/smallcodes-go/model"
	"github.com/gasparian/smallcodes-go/model/h5"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <model.h5> <model.gob>",
	Short: "Convert hdf5 ITQ model into the gob model file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := loadConfig()
		if err != nil {
			return err
		}
		t, err := (&h5.Loader{Path: args[0]}).Load()
		if err != nil {
			return err
		}
		if err := model.WriteFile(args[1], t); err != nil {
			return err
		}
		logger.Info.Printf("Model %dx%d written to %s", t.Dims(), t.Bits(), args[1])
		return nil
	},
}

package dataset

import (
	"fmt"

	"RebarForecast/internal/model"
)

// LoadHistory loads the train file and the optional test file. The last
// known date is the last test date, or the last train date without a test
// file.
func LoadHistory(src Source, trainPath, testPath string) (*model.History, error) {
	train, err := src.Load(trainPath)
	if err != nil {
		return nil, fmt.Errorf("load train set: %w", err)
	}
	h := &model.History{Train: train, LastDate: train[len(train)-1].Date}

	if testPath == "" {
		return h, nil
	}
	test, err := src.Load(testPath)
	if err != nil {
		return nil, fmt.Errorf("load test set: %w", err)
	}
	h.Test = test
	if last := test[len(test)-1].Date; !last.IsZero() {
		h.LastDate = last
	}
	return h, nil
}

package vitals

import "errors"

var ErrVitalsNotFound = errors.New("no vitals recorded for patient")

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSeries marca una serie que no cumple el contrato de entrada:
	// vacía, timestamps desordenados o duplicados, valores no finitos.
	ErrMalformedSeries = errors.New("malformed candle series")

	// ErrNonPositivePrice se devuelve cuando un precio es <= 0. Las diferencias
	// relativas dividen por el precio de referencia, así que se rechaza en la entrada.
	ErrNonPositivePrice = errors.New("non-positive price")

	// ErrSampleSizeExceedsPopulation: se piden más entradas distintas que filas tiene la serie.
	ErrSampleSizeExceedsPopulation = errors.New("sample size exceeds population")

	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnknownFeature   = errors.New("unknown feature key")
	ErrUnknownInterval  = errors.New("unknown candle interval")
)

// RowError attributes a validation failure to one row of the input series.
type RowError struct {
	Row int
	Err error
	Msg string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %v", e.Row, e.Msg, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

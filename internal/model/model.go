package model

import (
	"context"

	"github.com/go-logr/logr"
)

type contextKey string

const (
	CtxKeyCmd = contextKey("command")
)

type NewService func(ctx context.Context, config interface{}, log logr.Logger) Service

type Service interface {
	Run(args []string) error
}

// Package mcp exposes the retrieval pipeline to AI clients over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	verrors "github.com/veracite/veracite/internal/errors"
)

// Custom MCP error codes for Veracite.
const (
	// ErrCodeIndexNotFound indicates no index exists for the corpus.
	ErrCodeIndexNotFound = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeDocumentNotFound indicates a document no longer exists.
	ErrCodeDocumentNotFound = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var ve *verrors.VeraError
	if errors.As(err, &ve) {
		return mapVeraError(ve)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapVeraError converts a VeraError to an MCPError.
func mapVeraError(ve *verrors.VeraError) *MCPError {
	switch ve.Category {
	case verrors.CategoryIO:
		switch ve.Code {
		case verrors.ErrCodeDocumentNotFound, verrors.ErrCodeFileNotFound:
			return &MCPError{Code: ErrCodeDocumentNotFound, Message: ve.Message}
		case verrors.ErrCodeCorruptIndex:
			return &MCPError{Code: ErrCodeIndexNotFound, Message: ve.Message}
		default:
			return &MCPError{Code: ErrCodeInternalError, Message: ve.Message}
		}
	case verrors.CategoryProvider:
		if ve.Code == verrors.ErrCodeNetworkTimeout {
			return &MCPError{Code: ErrCodeTimeout, Message: ve.Message}
		}
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: ve.Message}
	case verrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: ve.Message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: ve.Message}
	}
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file holds the payload a node starts with when it is dropped onto the
// canvas from the palette.
package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrMissingLabel    = errors.New("node data has no label")
	ErrEmptyNodeID     = errors.New("node id is empty")
)

// idPrefixes mirrors the ids the palette generates for each type.
var idPrefixes = map[NodeType]string{
	TypeAPIStart:    "api",
	TypeParameters:  "param",
	TypeLogic:       "logic",
	TypeResponse:    "response",
	TypeJWTGenerate: "jwtGenerate",
	TypeJWTVerify:   "jwtVerify",
	TypeDatabase:    "database",
	TypeCondition:   "condition",
	TypeLoop:        "loop",
}

// IDPrefix returns the prefix used for freshly created nodes of type t.
func IDPrefix(t NodeType) string {
	if p, ok := idPrefixes[t]; ok {
		return p
	}
	return string(t)
}

// DefaultData returns the initial payload for a node of type t.
func DefaultData(t NodeType) (Data, error) {
	switch t {
	case TypeAPIStart:
		return Data{
			KeyLabel:       "API Endpoint",
			KeyDescription: "Entry point for the API",
			"method":       "GET",
			"path":         "/api/new",
		}, nil
	case TypeParameters:
		return Data{
			KeyLabel:       "Request Parameters",
			KeyDescription: "Define request parameters",
			"sources": []any{
				map[string]any{"from": "query", "required": []any{}},
			},
		}, nil
	case TypeLogic:
		return Data{
			KeyLabel:       "Process Data",
			KeyDescription: "Transform the input data",
			"code":         "// Access data from previous nodes using {{nodeId.result.}}\nreturn { processed: true };",
		}, nil
	case TypeResponse:
		return Data{
			KeyLabel:       "API Response",
			KeyDescription: "Send response to client",
			"status":       float64(200),
		}, nil
	case TypeJWTGenerate:
		return Data{
			KeyLabel:       "JWT Generate",
			KeyDescription: "Sign a token for the caller",
			"secretType":   "jwt",
			"expiresIn":    "1h",
			"payload":      map[string]any{},
		}, nil
	case TypeJWTVerify:
		return Data{
			KeyLabel:       "JWT Verify",
			KeyDescription: "Verify the caller's token",
			"secretType":   "jwt",
		}, nil
	case TypeDatabase:
		return Data{
			KeyLabel:       "Data Base",
			KeyDescription: "Make Database Operations",
			"provider":     "mongodb",
			"collection":   "users",
			"operation":    "findOne",
			"query":        map[string]any{},
			"data":         map[string]any{},
		}, nil
	case TypeCondition:
		return Data{
			KeyLabel:       "Condition Node",
			KeyDescription: "Make Condition Operations",
			"condition":    "",
		}, nil
	case TypeLoop:
		return Data{
			KeyLabel:       "Loop Node",
			KeyDescription: "Make Loop Operations",
			"items":        "",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}
}

// NewNode builds a node of type t with the palette defaults.
func NewNode(t NodeType, id string, pos Position) (Node, error) {
	data, err := DefaultData(t)
	if err != nil {
		return Node{}, err
	}
	return Node{ID: id, Type: t, Position: pos, Data: data}, nil
}

// ValidateNode checks the structural requirements every node must meet.
func ValidateNode(n Node) error {
	if n.ID == "" {
		return ErrEmptyNodeID
	}
	if !n.Type.Known() {
		return fmt.Errorf("node %q: %w: %q", n.ID, ErrUnknownNodeType, n.Type)
	}
	if n.Data.String(KeyLabel) == "" {
		return fmt.Errorf("node %q: %w", n.ID, ErrMissingLabel)
	}
	return nil
}

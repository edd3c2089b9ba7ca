package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Vic92548/VCCE-Server/pkg/ai"
	"github.com/Vic92548/VCCE-Server/pkg/fsops"
	"github.com/Vic92548/VCCE-Server/pkg/protocol"
)

// registerHandlers builds the fixed command table. exec is not here:
// it is stream-class and routed separately by dispatch.
func (s *Server) registerHandlers() {
	s.handlers = map[string]handlerFunc{
		protocol.CmdReadFile:   s.handleReadFile,
		protocol.CmdWriteFile:  s.handleWriteFile,
		protocol.CmdListDir:    s.handleListDir,
		protocol.CmdListDirs:   s.handleListDirs,
		protocol.CmdCreateDir:  s.handleCreateDir,
		protocol.CmdDeleteFile: s.handleDeleteFile,
		protocol.CmdDeleteDir:  s.handleDeleteDir,
		protocol.CmdIsDir:      s.handleIsDir,
		protocol.CmdRename:     s.handleRename,
		protocol.CmdAIChat:     s.handleAIChat,
		protocol.CmdSetAPIKey:  s.handleSetAPIKey,
		protocol.CmdAIStatus:   s.handleAIStatus,
		protocol.CmdAIApprove:  s.handleAIApprove,
		protocol.CmdPing:       s.handlePing,
	}
}

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleReadFile(ctx context.Context, raw json.RawMessage) (result, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}
	if args.Path == "" {
		return result{}, fmt.Errorf("readFile requires a path argument")
	}

	content, err := fsops.ReadFile(args.Path)
	if err != nil {
		return result{}, err
	}
	return result{data: content}, nil
}

func (s *Server) handleWriteFile(ctx context.Context, raw json.RawMessage) (result, error) {
	var args struct {
		Path string `json:"path"`
		Data string `json:"data"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}
	if args.Path == "" {
		return result{}, fmt.Errorf("writeFile requires a path argument")
	}

	if err := fsops.WriteFile(args.Path, args.Data); err != nil {
		return result{}, err
	}
	return result{}, nil
}

func (s *Server) handleListDir(ctx context.Context, raw json.RawMessage) (result, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}
	entries, err := fsops.ListDir(args.Path)
	if err != nil {
		return result{}, err
	}
	return result{data: entries}, nil
}

func (s *Server) handleListDirs(ctx context.Context, raw json.RawMessage) (result, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}
	dirs, err := fsops.ListDirs(args.Path)
	if err != nil {
		return result{}, err
	}
	return result{data: dirs}, nil
}

func (s *Server) handleCreateDir(ctx context.Context, raw json.RawMessage) (result, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}
	if args.Path == "" {
		return result{}, fmt.Errorf("createDir requires a path argument")
	}
	return result{}, fsops.CreateDir(args.Path)
}

func (s *Server) handleDeleteFile(ctx context.Context, raw json.RawMessage) (result, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}
	if args.Path == "" {
		return result{}, fmt.Errorf("deleteFile requires a path argument")
	}
	return result{}, fsops.DeleteFile(args.Path)
}

func (s *Server) handleDeleteDir(ctx context.Context, raw json.RawMessage) (result, error) {
	var args struct {
		Path      string `json:"path"`
		Recursive bool   `json:"recursive"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}
	if args.Path == "" {
		return result{}, fmt.Errorf("deleteDir requires a path argument")
	}
	return result{}, fsops.DeleteDir(args.Path, args.Recursive)
}

func (s *Server) handleIsDir(ctx context.Context, raw json.RawMessage) (result, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}
	if args.Path == "" {
		return result{}, fmt.Errorf("isDir requires a path argument")
	}

	isDir, err := fsops.IsDir(args.Path)
	if err != nil {
		return result{}, err
	}
	return result{data: isDir}, nil
}

func (s *Server) handleRename(ctx context.Context, raw json.RawMessage) (result, error) {
	var args struct {
		OldPath string `json:"oldPath"`
		NewPath string `json:"newPath"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}
	if args.OldPath == "" || args.NewPath == "" {
		return result{}, fmt.Errorf("rename requires oldPath and newPath arguments")
	}
	return result{}, fsops.Rename(args.OldPath, args.NewPath)
}

func (s *Server) handleAIChat(ctx context.Context, raw json.RawMessage) (result, error) {
	var args struct {
		ProjectPath string       `json:"projectPath"`
		Messages    []ai.Message `json:"messages"`
		NewSession  bool         `json:"newSession"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}

	chat, err := s.broker.Chat(ctx, args.ProjectPath, args.Messages, args.NewSession)
	if err != nil {
		return result{}, err
	}

	res := result{data: chat.Reply}
	if chat.Patch != nil {
		res.meta = map[string]any{
			"patchId": chat.Patch.ID,
			"diff":    chat.Patch.Diff,
		}
	}
	return res, nil
}

func (s *Server) handleSetAPIKey(ctx context.Context, raw json.RawMessage) (result, error) {
	var args struct {
		Key string `json:"key"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}

	if err := s.broker.SetAPIKey(args.Key); err != nil {
		return result{}, err
	}
	return result{data: "API key saved"}, nil
}

func (s *Server) handleAIStatus(ctx context.Context, raw json.RawMessage) (result, error) {
	return result{data: s.broker.Status()}, nil
}

func (s *Server) handleAIApprove(ctx context.Context, raw json.RawMessage) (result, error) {
	var args struct {
		PatchID string `json:"patchId"`
		Apply   bool   `json:"apply"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result{}, err
	}
	if args.PatchID == "" {
		return result{}, fmt.Errorf("aiApprove requires a patchId argument")
	}

	if !args.Apply {
		if err := s.patches.Discard(args.PatchID); err != nil {
			return result{}, err
		}
		return result{data: map[string]any{"discarded": true}}, nil
	}

	if err := s.patches.Approve(args.PatchID); err != nil {
		return result{}, err
	}
	return result{data: map[string]any{"applied": true}}, nil
}

func (s *Server) handlePing(ctx context.Context, raw json.RawMessage) (result, error) {
	return result{data: map[string]any{"status": "ok"}}, nil
}

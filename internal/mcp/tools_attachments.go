package mcp

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

func attachmentIDParam() mcp.ToolOption {
	return mcp.WithNumber("attachment_id", mcp.Required(), mcp.Description("Attachment ID"))
}

func (h *ToolHandlers) attachmentTools() []Tool {
	return []Tool{
		{
			Definition: newTool("upload_file", "Upload file", 0,
				mcp.WithDescription("Upload a file and get a token. Reference the token in the uploads field of create_issue, update_issue or create_or_update_wiki_page to attach the file"),
				mcp.WithString("file_content", mcp.Required(), mcp.Description("File content, base64 encoded or plain text")),
				mcp.WithString("filename", mcp.Required(), mcp.Description("File name")),
				mcp.WithString("content_type", mcp.Description("MIME type (default: application/octet-stream)")),
				mcp.WithString("description", mcp.Description("Attachment description")),
			),
			Handler: h.handleUploadFile,
		},
		{
			Definition: newTool("get_attachment", "Get attachment", Readonly|Idempotent,
				mcp.WithDescription("Get attachment metadata"),
				attachmentIDParam(),
			),
			Handler: h.handleGetAttachment,
		},
		{
			Definition: newTool("download_attachment", "Download attachment", Readonly|Idempotent,
				mcp.WithDescription("Download an attachment. The content is returned base64 encoded"),
				attachmentIDParam(),
			),
			Handler: h.handleDownloadAttachment,
		},
	}
}

// decodeContent accepts base64 and falls back to the raw text.
func decodeContent(s string) []byte {
	if data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s)); err == nil {
		return data
	}
	return []byte(s)
}

func (h *ToolHandlers) handleUploadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := requireContent(req, "file_content")
	if err != nil {
		return nil, err
	}
	filename, err := requireString(req, "filename")
	if err != nil {
		return nil, err
	}
	upload := redmine.UploadToken{
		Filename:    filename,
		ContentType: req.GetString("content_type", "application/octet-stream"),
		Description: req.GetString("description", ""),
	}

	upload.Token, err = h.clientFor(ctx).Upload(ctx, filename, decodeContent(content))
	if err != nil {
		return nil, err
	}

	return jsonResult(map[string]any{
		"status":       "uploaded",
		"token":        upload.Token,
		"filename":     upload.Filename,
		"content_type": upload.ContentType,
		"description":  upload.Description,
		"usage": map[string]any{
			"message": "Use this token when creating or updating an issue or wiki page",
			"example_issue": map[string]any{
				"issue": map[string]any{
					"project_id": 1,
					"subject":    "Issue with attachment",
					"uploads":    []redmine.UploadToken{upload},
				},
			},
		},
	})
}

func (h *ToolHandlers) handleGetAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "attachment_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetAttachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Attachment", id)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) handleDownloadAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "attachment_id")
	if err != nil {
		return nil, err
	}

	info, content, err := h.clientFor(ctx).FetchAttachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !info.Found {
		return notFound("Attachment", id)
	}

	return jsonResult(map[string]any{
		"attachment_info": info.Value,
		"content_base64":  base64.StdEncoding.EncodeToString(content),
		"size":            len(content),
	})
}

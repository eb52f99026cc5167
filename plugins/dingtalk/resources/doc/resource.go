package doc

import (
	"net/http"
	"net/url"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	opGetUploadInfo = "doc.resource.getUploadInfo"
	opUpload        = "doc.resource.upload"
)

func docIDProperty() runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName: "文档ID",
		Name:        "docId",
		Type:        runtime.PropertyString,
		Default:     "",
		Required:    true,
		Hint:        "dentryUuid/documentId/workbookId/baseId",
	}
}

func props(op string, extra ...runtime.NodeProperty) []runtime.NodeProperty {
	show := runtime.ShowOnly("operation", op)
	out := operation.OperatorProps(show)
	for _, p := range extra {
		p.DisplayOptions = show
		out = append(out, p)
	}
	return out
}

var resourceGetUploadInfo = operation.Def{
	Value:       opGetUploadInfo,
	Name:        "获取资源上传信息",
	Description: "查询文档指定资源的上传地址",
	Properties: props(opGetUploadInfo,
		docIDProperty(),
		runtime.NodeProperty{DisplayName: "资源大小", Name: "size", Type: runtime.PropertyNumber, Default: 0, Required: true},
		runtime.NodeProperty{
			DisplayName: "资源类型",
			Name:        "mediaType",
			Type:        runtime.PropertyString,
			Default:     "",
			Required:    true,
			Placeholder: "image/jpeg",
			Description: "具体值参考 MIME 类型",
		},
		runtime.NodeProperty{DisplayName: "资源名称", Name: "resourceName", Type: runtime.PropertyString, Default: "", Required: true},
	),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		var in struct {
			DocID        string `json:"docId" validate:"required"`
			Size         int64  `json:"size" validate:"gte=0"`
			MediaType    string `json:"mediaType" validate:"required"`
			ResourceName string `json:"resourceName" validate:"required"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		resp, err := queryUploadInfo(c, itemIndex, in.DocID, in.Size, in.MediaType, in.ResourceName)
		if err != nil {
			return runtime.Item{}, err
		}
		return runtime.NewItem(resp, itemIndex), nil
	},
}

func queryUploadInfo(c *operation.Context, itemIndex int, docID string, size int64, mediaType, name string) (map[string]any, error) {
	operator, err := operation.OperatorID(c, itemIndex)
	if err != nil {
		return nil, err
	}
	return c.RequestObject(transport.Options{
		Method: http.MethodPost,
		URL:    "/doc/docs/resources/" + url.PathEscape(docID) + "/uploadInfos/query",
		Query:  map[string]any{"operatorId": operator},
		Body: map[string]any{
			"size":         size,
			"mediaType":    mediaType,
			"resourceName": name,
		},
	})
}

var resourceUpload = operation.Def{
	Value:       opUpload,
	Name:        "获取资源上传信息并上传",
	Description: "获取文档指定资源的上传地址，并上传附件到该资源",
	Properties: props(opUpload,
		docIDProperty(),
		runtime.NodeProperty{
			DisplayName: "二进制文件字段",
			Name:        "inputDataFieldName",
			Type:        runtime.PropertyString,
			Default:     "data",
			Required:    true,
			Description: "要处理的二进制文件数据所对应的传入字段名称，例如 data",
		},
	),
	Run: runUpload,
}

type uploadInput struct {
	DocID string `json:"docId" validate:"required"`
	Field string `json:"inputDataFieldName" default:"data" validate:"required"`
}

// runUpload queries an upload slot for the item's binary and PUTs the raw
// bytes to the returned pre-signed URL. The upload itself is not
// authenticated with the application token.
func runUpload(c *operation.Context, itemIndex int) (runtime.Item, error) {
	var in uploadInput
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return runtime.Item{}, err
	}

	binary, err := c.BinaryData(itemIndex, in.Field)
	if err != nil {
		return runtime.Item{}, c.Errorf(itemIndex, "未找到需要上传的文件数据").WithDescription(err.Error())
	}
	fileName := binary.FileName
	if fileName == "" {
		fileName = "file"
	}
	size := int64(len(binary.Data))

	info, err := queryUploadInfo(c, itemIndex, in.DocID, size, binary.MimeType, fileName)
	if err != nil {
		return runtime.Item{}, err
	}
	c.Logger().DebugContext(c, "upload info", "doc_id", in.DocID, "size", size)

	result, _ := info["result"].(map[string]any)
	uploadURL := runtime.ToString(result["uploadUrl"])
	if result == nil || uploadURL == "" {
		return runtime.Item{}, c.Errorf(itemIndex, "未获取到上传地址")
	}

	headers := map[string]string{}
	if binary.MimeType != "" {
		headers["Content-Type"] = binary.MimeType
	}
	if _, err := c.HTTPRequest(c, &runtime.HTTPRequest{
		Method:  http.MethodPut,
		URL:     uploadURL,
		Headers: headers,
		Body:    binary.Data,
	}); err != nil {
		return runtime.Item{}, runtime.WrapOperationError(c.NodeName(), err).WithItemIndex(itemIndex)
	}

	return runtime.NewItem(map[string]any{
		"filename":   fileName,
		"size":       size,
		"type":       binary.MimeType,
		"resourceId": result["resourceId"],
		"url":        result["resourceUrl"],
	}, itemIndex), nil
}

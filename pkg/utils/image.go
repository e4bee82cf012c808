package utils

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// 允许上传的图片扩展名
var allowedImageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ValidateImageExt 校验文件扩展名，返回规范化扩展名和 Content-Type
func ValidateImageExt(filename string) (ext, contentType string, err error) {
	ext = strings.ToLower(path.Ext(filename))
	contentType, ok := allowedImageExts[ext]
	if !ok {
		return "", "", fmt.Errorf("unsupported image extension: %q", ext)
	}
	return ext, contentType, nil
}

// DetectImageType 按文件头嗅探内容类型
// 扩展名可以随便改，文件头不行；非图片内容在这里拦下
func DetectImageType(data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	for _, allowed := range allowedImageExts {
		if contentType == allowed {
			return contentType, nil
		}
	}
	return "", fmt.Errorf("not an allowed image type: %q", contentType)
}

// RandomImageName 生成不可预测的图片文件名
func RandomImageName(ext string) string {
	return uuid.New().String() + ext
}

// ProductImagePath 商品图片的存储相对路径
func ProductImagePath(filename string) string {
	return path.Join("uploads", "product", filename)
}

// FetchImage 下载网络图片并返回字节切片与 Content-Type
func FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	client := resty.New()
	client.SetTimeout(15 * time.Second)
	client.SetRetryCount(2)

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("http get failed: %v", err)
	}
	if resp.StatusCode() != 200 {
		return nil, "", fmt.Errorf("download failed with status: %d", resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("not an image: content-type %q", contentType)
	}

	return resp.Body(), contentType, nil
}

package export

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// UploadBlob writes data to the named blob, creating the container if needed.
func UploadBlob(ctx context.Context, connectionString, container, name string, data []byte) error {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return fmt.Errorf("create blob client: %w", err)
	}
	if _, err := client.CreateContainer(ctx, container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create blob container %q: %w", container, err)
	}
	if _, err := client.UploadBuffer(ctx, container, name, data, nil); err != nil {
		return fmt.Errorf("upload blob %s/%s: %w", container, name, err)
	}
	return nil
}

// DownloadBlob reads the named blob in full.
func DownloadBlob(ctx context.Context, connectionString, container, name string) ([]byte, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	resp, err := client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		return nil, fmt.Errorf("download blob %s/%s: %w", container, name, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %s/%s: %w", container, name, err)
	}
	return data, nil
}

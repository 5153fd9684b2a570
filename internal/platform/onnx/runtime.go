// Package onnx はONNX Runtime環境の共有初期化を提供します。
package onnx

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// EnvKeyLibraryPath はONNX Runtime共有ライブラリのパスを指定する環境変数です。
// 未設定の場合、ライブラリのデフォルト解決に任せます。
const EnvKeyLibraryPath = "ONNXRUNTIME_LIB"

var initOnce sync.Once

// Init はプロセス全体で一度だけONNX Runtime環境を初期化します。
// モデルアーティファクトを読み込む前に呼び出してください。
// 2回目以降の呼び出しは何もせずnilを返します。
func Init() error {
	var initErr error
	initOnce.Do(func() {
		if path := os.Getenv(EnvKeyLibraryPath); path != "" {
			ort.SetSharedLibraryPath(path)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("initialize onnx runtime: %w", err)
		}
	})
	return initErr
}

// Destroy はONNX Runtime環境を解放します。プロセス終了時に呼び出します。
func Destroy() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Package main 启动应用程序
package main

import "github.com/yeisme/appvault/pkg/cmd"

//	@title			AppVault API
//	@version		1.0
//	@description	AppVault 管理 AI 生成 Web 应用的文件内容、版本快照与部署状态，提供分层存储与回滚能力。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

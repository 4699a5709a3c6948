package main

import (
	"gwreport-backend/cmd/gwreport/commands"
	"gwreport-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}

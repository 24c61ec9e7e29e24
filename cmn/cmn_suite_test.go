package cmn_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestCmn(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cmn Suite")
}

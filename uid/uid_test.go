/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package uid_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/d2dcn/uid"
)

var _ = Describe("uid", func() {
	Describe("Create", func() {
		It("should build the expected path", func() {
			p, err := uid.Create("aabbcc", "myservice", "generic", uid.ModeCommand, "cmd1")
			Expect(err).To(BeNil())
			Expect(p).To(Equal("d2dcn/aabbcc/myservice/command/generic/cmd1"))
		})

		It("should reject empty components", func() {
			_, err := uid.Create("", "myservice", "generic", uid.ModeCommand, "cmd1")
			Expect(err).ToNot(BeNil())
		})

		It("should reject an invalid mode", func() {
			_, err := uid.Create("aabbcc", "myservice", "generic", uid.Mode("bogus"), "cmd1")
			Expect(err).ToNot(BeNil())
		})

		It("should sanitize embedded separators", func() {
			p, err := uid.Create("aa/bb", "svc", "generic", uid.ModeInfo, "n1")
			Expect(err).To(BeNil())
			Expect(p).To(Equal("d2dcn/aa-bb/svc/info/generic/n1"))
		})
	})

	Describe("CreateRegexPath", func() {
		It("should match any name under a fixed category with a wildcard", func() {
			re, err := uid.CreateRegexPath("aabbcc", "myservice", "generic", uid.ModeCommand, "")
			Expect(err).To(BeNil())
			Expect(re.MatchString("d2dcn/aabbcc/myservice/command/generic/cmd1")).To(BeTrue())
			Expect(re.MatchString("d2dcn/aabbcc/myservice/command/generic/cmd2")).To(BeTrue())
			Expect(re.MatchString("d2dcn/aabbcc/myservice/command/other/cmd1")).To(BeFalse())
		})

		It("should match everything when every component is empty", func() {
			re, err := uid.CreateRegexPath("", "", "", uid.Mode(""), "")
			Expect(err).To(BeNil())
			Expect(re.MatchString("d2dcn/aabbcc/myservice/info/generic/n1")).To(BeTrue())
		})
	})

	Describe("Extract", func() {
		It("should split a well-formed path", func() {
			info, err := uid.Extract("d2dcn/aabbcc/myservice/command/generic/cmd1")
			Expect(err).To(BeNil())
			Expect(info.Mac).To(Equal("aabbcc"))
			Expect(info.Service).To(Equal("myservice"))
			Expect(info.Mode).To(Equal(uid.ModeCommand))
			Expect(info.Category).To(Equal("generic"))
			Expect(info.Name).To(Equal("cmd1"))
		})

		It("should reject a wrong prefix", func() {
			_, err := uid.Extract("other/aabbcc/myservice/command/generic/cmd1")
			Expect(err).ToNot(BeNil())
		})

		It("should reject a wrong segment count", func() {
			_, err := uid.Extract("d2dcn/aabbcc/myservice/command/generic")
			Expect(err).ToNot(BeNil())
		})

		It("should reject an invalid mode segment", func() {
			_, err := uid.Extract("d2dcn/aabbcc/myservice/bogus/generic/cmd1")
			Expect(err).ToNot(BeNil())
		})
	})
})

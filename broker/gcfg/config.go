package gcfg

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"github.com/lybxkl/simq/util"
)

//go:embed config.toml
var CfgFile []byte

var (
	gConfig  *GConfig
	Validate = validator.New()
	trans    ut.Translator
)

func init() {
	uni := ut.New(zh.New())
	trans, _ = uni.GetTranslator("zh")

	//注册一个函数，获取struct tag里自定义的label作为字段名
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		label := fld.Tag.Get("label")
		if label == "" {
			return fld.Name
		}
		return label
	})

	// default标签：零值字段回填默认值
	util.MustPanic(Validate.RegisterValidation("default", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.String:
			if fl.Field().String() == "" {
				if strings.Contains(fl.Param(), "*") {
					fl.Field().Set(reflect.ValueOf(strings.Replace(fl.Param(), "*", util.Generate(), 1)))
				} else {
					fl.Field().Set(reflect.ValueOf(fl.Param()))
				}
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if fl.Field().Int() == 0 {
				setIntOrUint(fl)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if fl.Field().Uint() == 0 {
				setIntOrUint(fl)
			}
		case reflect.Float32, reflect.Float64:
			if fl.Field().Float() == 0 {
				setFloat(fl)
			}
		}
		return true
	}))

	//验证器注册翻译器
	util.MustPanic(zh_translations.RegisterDefaultTranslations(Validate, trans))
}

func GetGCfg() *GConfig {
	return gConfig
}

func init() {
	gConfig = &GConfig{}

	if err := toml.Unmarshal(loadCfgData(), gConfig); err != nil {
		panic(err)
	}

	util.MustPanic(Translate(Validate.Struct(gConfig)))
}

// loadCfgData 配置数据来源：SI_CFG_PATH目录下的config.toml优先，
// 其次运行目录下的config/config.toml，最后内嵌默认配置
func loadCfgData() []byte {
	if root := os.Getenv(util.CfgPathENV); root != "" {
		b, err := os.ReadFile(util.GetConfigPath("", "config.toml"))
		util.MustPanic(err)
		return b
	}
	if b, err := os.ReadFile(util.GetConfigPath(util.GetCurrentDirectory(), "config.toml")); err == nil {
		return b
	}
	if len(CfgFile) == 0 {
		panic(errors.New("not found config.toml"))
	}
	return CfgFile
}

type GConfig struct {
	Version string `toml:"version" validate:"default=1.0.0"`
	Broker  `toml:"broker"`
	Connect `toml:"connect"`
	PProf   `toml:"pprof"`
	Metric  `toml:"metric"`
	Sys     `toml:"sys"`
	Log     `toml:"log"`
}

func (cfg *GConfig) String() string {
	b, err := json.Marshal(*cfg)
	if err != nil {
		return fmt.Sprintf("%+v", *cfg)
	}
	var out bytes.Buffer
	err = json.Indent(&out, b, "", "    ")
	if err != nil {
		return fmt.Sprintf("%+v", *cfg)
	}
	return out.String()
}

type Connect struct {
	// ReadLimit 单连接每秒最多处理的报文数，0不限
	ReadLimit int `toml:"readLimit"`
	// ReadBufferSize 每连接读缓冲的单次读取大小
	ReadBufferSize int `toml:"readBufferSize" validate:"default=8192"`
	// MaxPacketSize 允许的最大报文长度（字节），超过即断开连接，0不限
	MaxPacketSize uint32 `toml:"maxPacketSize"`
}

type PProf struct {
	Open bool `toml:"open"`
	Port int  `toml:"port" validate:"default=8080"`
}

type Metric struct {
	Open bool   `toml:"open"`
	Addr string `toml:"addr" validate:"default=:9090"`
}

type Sys struct {
	// Interval $sys统计主题的发布周期（秒），0禁用
	Interval uint64 `toml:"interval" validate:"default=10"`
}

func setIntOrUint(fl validator.FieldLevel) bool {
	va, err := strconv.ParseInt(fl.Param(), 10, 64)
	if err != nil {
		return false
	}

	switch fl.Field().Kind() {
	case reflect.Int:
		fl.Field().Set(reflect.ValueOf(int(va)))
	case reflect.Uint:
		fl.Field().Set(reflect.ValueOf(uint(va)))
	case reflect.Int8:
		fl.Field().Set(reflect.ValueOf(int8(va)))
	case reflect.Uint8:
		fl.Field().Set(reflect.ValueOf(uint8(va)))
	case reflect.Int16:
		fl.Field().Set(reflect.ValueOf(int16(va)))
	case reflect.Uint16:
		fl.Field().Set(reflect.ValueOf(uint16(va)))
	case reflect.Int32:
		fl.Field().Set(reflect.ValueOf(int32(va)))
	case reflect.Uint32:
		fl.Field().Set(reflect.ValueOf(uint32(va)))
	case reflect.Int64:
		fl.Field().Set(reflect.ValueOf(int64(va)))
	case reflect.Uint64:
		fl.Field().Set(reflect.ValueOf(uint64(va)))
	}
	return true
}

func setFloat(fl validator.FieldLevel) bool {
	va, err := strconv.ParseFloat(fl.Param(), 64)
	if err != nil {
		return false
	}

	switch fl.Field().Kind() {
	case reflect.Float32:
		fl.Field().Set(reflect.ValueOf(float32(va)))
	case reflect.Float64:
		fl.Field().Set(reflect.ValueOf(float64(va)))
	}
	return true
}

func Translate(errs error) error {
	if errs == nil {
		return errs
	}
	if err, ok := errs.(validator.ValidationErrors); ok {
		var errList []string
		for _, e := range err {
			// can translate each error one at a time.
			errList = append(errList, e.Translate(trans))
		}
		return errors.New(strings.Join(errList, "|"))
	} else {
		return errs
	}
}

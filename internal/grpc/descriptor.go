package grpc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

const descriptorFile = "staffperf/v1/insights.proto"

var insightsMethods = []string{"GetStaffPerformance", "GetStaffSeries", "GetPeriodChange", "GetBranchOverview"}

// insightsFileProto describes the service for server reflection. Every
// method takes and returns a google.protobuf.Struct.
func insightsFileProto() *descriptorpb.FileDescriptorProto {
	structName := "." + string((&structpb.Struct{}).ProtoReflect().Descriptor().FullName())
	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(insightsMethods))
	for _, name := range insightsMethods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(structName),
			OutputType: proto.String(structName),
		})
	}
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(descriptorFile),
		Package:    proto.String("staffperf.v1"),
		Dependency: []string{structpb.File_google_protobuf_struct_proto.Path()},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("PerformanceInsights"),
			Method: methods,
		}},
	}
}

func init() {
	fd, err := protodesc.NewFile(insightsFileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("build %s: %v", descriptorFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register %s: %v", descriptorFile, err))
	}
}
